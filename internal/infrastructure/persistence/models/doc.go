// Package models contains the GORM persistence models for returns, the
// stock location ledger, write-offs and the event outbox. Domain types stay
// free of ORM tags; each model converts with ToDomain / FromDomain.
package models
