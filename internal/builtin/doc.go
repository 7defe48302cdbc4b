// Package builtin groups the plugins compiled into the go_draconis binary.
// Each subpackage registers itself with the static plugin table from init;
// importing it for side effects is enough to make the plugin loadable.
package builtin
