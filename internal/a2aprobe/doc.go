// Package a2aprobe sends a single message to a running agent over the A2A
// protocol and reports its text reply.
package a2aprobe
