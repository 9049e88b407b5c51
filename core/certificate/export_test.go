package certificate

// SetCodeGenerator replaces the certificate code generator, returning a func restoring the original.
func SetCodeGenerator(gen func() string) (restore func()) {
	orig := newCode
	newCode = gen
	return func() { newCode = orig }
}

var (
	GenerateCode      = generateCode
	ErrCodesExhausted = errCodesExhausted
)
