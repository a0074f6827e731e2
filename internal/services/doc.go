// Package services defines the shared error taxonomy for clipforge
// components and helpers for classifying failures at the API boundary.
package services
