// Package handlers provides the webhook and monitoring HTTP handlers.
package handlers
