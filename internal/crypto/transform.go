package crypto

// Transform is the keyed stream-cipher primitive. It transforms data in place
// using the keystream starting at pos and returns the position after the last
// byte it consumed.
//
// The protocol's concrete algorithm is supplied by the caller; this package
// only manages the per-direction state around it.
type Transform interface {
	Apply(key byte, pos uint64, data []byte) uint64
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(key byte, pos uint64, data []byte) uint64

// Apply calls f.
func (f TransformFunc) Apply(key byte, pos uint64, data []byte) uint64 {
	return f(key, pos, data)
}

// Passthrough leaves data untouched and advances the position by its length.
// It is the transform for servers that run without stream encryption.
var Passthrough Transform = TransformFunc(func(_ byte, pos uint64, data []byte) uint64 {
	return pos + uint64(len(data))
})
