// Package walker traverses a parsed workflow document and pins every action
// reference it finds. The tree is a gopkg.in/yaml.v3 node graph and is
// mutated in place, so everything the walker does not touch is serialized
// back exactly as yaml.v3 parsed it.
//
// References are resolved one after another in document order. Concurrency
// comes from walking several documents at once against a shared gate.
package walker
