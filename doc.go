// Package ppoprf implements a puncturable partially-oblivious pseudorandom
// function over the ristretto255 group, after "STAR: Secret Sharing for Private
// Threshold Aggregation Reporting" (https://arxiv.org/abs/2109.10074).
//
// A client hashes its input to a group element, blinds it and sends it to the
// Server together with a public metadata tag, such as the current epoch. The
// Server evaluates the blinded element with the key belonging to that tag and
// optionally proves that it did so correctly; the client verifies the proof,
// unblinds and finalizes the result into randomness that only depends on its
// input and the tag.
//
// Per-tag keys are derived from a puncturable PRF (package ggm). Once a tag is
// punctured, the server can no longer evaluate under it, and neither can anyone
// who later obtains the server's key material. The randsrv package builds a
// randomness service on top of this by puncturing each epoch's tag when the
// epoch ends.
package ppoprf
