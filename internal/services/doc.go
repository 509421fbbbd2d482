// Package services defines the shared error taxonomy and context helpers used
// by phases and external service clients.
package services
