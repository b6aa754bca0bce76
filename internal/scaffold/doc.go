// Package scaffold creates new agent projects from a template tree. It
// powers the "saop scaffold" command: the embedded base_agent template (or
// an on-disk replacement) is copied into a fresh directory, files ending in
// .tmpl are rendered with the project's Data, and the generated saop.yaml
// and agent.yaml are checked against their schemas.
package scaffold
