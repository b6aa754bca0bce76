// Package compiler concatenates an ordered list of project files into one
// annotated text report. Each listed path produces exactly one bannered
// section, in list order: the file's bytes verbatim when it exists, or a
// "(NOT FOUND)" marker when it does not. A trailing summary records how many
// paths were processed, when the run started and the working directory.
// Missing files are reported, never fatal; the report is rewritten from
// scratch on every run.
package compiler
