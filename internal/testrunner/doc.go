// Package testrunner dispatches the project's Python A2A test client in
// one of its modes (quick, single, full) after checking that the client
// script and its required library are available.
package testrunner
