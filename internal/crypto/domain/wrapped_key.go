package domain

// WrappedKey is a symmetric key sealed by a master key.
type WrappedKey struct {
	MasterKeyID string
	Algorithm   Algorithm
	Ciphertext  []byte
	Nonce       []byte
}
