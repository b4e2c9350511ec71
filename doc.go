// Package tomlparams loads hierarchical parameter sets from TOML files.
//
// An application supplies a defaults structure (a nested map, a TOML file,
// or a directory of TOML files) that defines the universe of legal keys and
// the expected type of every value. A named overlay TOML file is then merged
// on top: overlay values win wherever they are present, inclusion chains
// (the reserved "include" key) are resolved first, unknown keys are rejected,
// and type disagreements are reported according to a configurable policy.
// The consolidated result is exposed as an ordered parameter tree and can be
// written back out as a single TOML document.
package tomlparams
