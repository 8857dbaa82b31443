// Package iam is the identity and access management module: session
// credentials (access/refresh token pairs with rotation and reuse detection),
// organization-scoped API keys, and role-based permission gating.
//
// Subpackage layout follows ports-and-adapters: each domain
// (auth, session, apikey, user, organization) exposes its models and
// repository ports at the package root, with service logic in <domain>srv,
// storage adapters in <domain>infra, and HTTP handlers in <domain>api.
package iam
