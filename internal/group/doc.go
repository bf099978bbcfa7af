// Package group defines texture groups, the container assets whose
// construction cost the benchmark measures.
//
// A group is persisted as a [Record]: a named, fixed-capacity list of texture
// references written as YAML. Loading a record back and resolving its
// references yields a [TextureGroup]; constructing one performs the group's
// one-time initialization, which increments a shared [AwakeCounter].
package group
