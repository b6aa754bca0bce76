// Package manifest reads and validates the YAML documents the CLI works
// with: compile file lists, the generated agent.yaml and the per-project
// saop.yaml. Each document kind has an embedded JSON Schema; Validate
// reports schema violations as ValidationIssue values rather than errors.
package manifest
