// Package routes registers the admin endpoints served under the /-/ prefix.
// They read and mutate the live settings and overwrite tables of a running
// proxy without restarting it.
package routes
