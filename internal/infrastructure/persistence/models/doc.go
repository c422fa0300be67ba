// Package models contains the GORM persistence models. Domain types carry no
// ORM tags; each model here maps one table and converts to and from its domain
// type with ToDomain / <Model>FromDomain.
//
// Models whose rows belong to a tenant implement TenantOwned so the tenant
// callbacks scope every statement against them. The tenant registry model
// implements TenantRegistry instead. The outbox model implements neither:
// outbox rows are relay metadata and are read across tenants.
package models
