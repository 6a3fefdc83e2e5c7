// Package models contains the GORM persistence models of the ordering
// service. They are kept apart from the domain types so that the domain
// layer carries no ORM tags; mappers convert between the two.
package models
