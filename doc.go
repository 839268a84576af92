// doc.go - top level documentation
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Package mph implements a minimal perfect hash function for large key
// sets using the Czech-Havas-Majewski (CHM) algorithm: a randomized
// acyclic-graph construction built directly over raw byte-string keys.
//
// mph exposes a convenient way to serialize keys and values into an
// on-disk single-file database. This serialized MPH DB is useful in
// situations where reading from such a "constant" DB is much more
// frequent than updates to the DB.
//
// CHM is keyed by the raw key bytes, since it keeps them around for a
// byte-exact lookup check rather than hashing a key down to a uint64
// up front. 'ChmBuilder' builds an in-memory table; 'ChmDBWriter' and
// 'ChmDBReader' build and serve an on-disk constant DB.
package mph
