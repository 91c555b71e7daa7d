// Package output renders server replies for the CLI.
//
//   - text.go: redis-cli style ("v", (nil), (integer) 1, (error) ..., numbered arrays)
//   - json.go: indented JSON
//   - yaml.go: YAML (gopkg.in/yaml.v3)
//
// JSON and YAML share one mapping of replies to plain values: simple and
// bulk strings become strings, integers numbers, null becomes null, errors
// an object with an "error" field and arrays lists.
package output
