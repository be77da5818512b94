// Package lookup is the boundary between actionpin and GitHub. It defines the
// three queries the resolver needs and provides two implementations: a REST
// client built on go-github and a wrapper around the `gh` command line tool.
package lookup
