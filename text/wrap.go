package text

type AppendBytesClosure func(dst, src []byte) []byte

type AppendClosure func(dst []byte) []byte

// Noop appends src to dst unchanged.
func Noop(dst, src []byte) []byte { return append(dst, src...) }

// AppendQuote appends src to dst wrapped in double quotes, passing it through
// ac on the way.
func AppendQuote(dst, src []byte, ac AppendBytesClosure) []byte {
	dst = append(dst, '"')
	dst = ac(dst, src)
	dst = append(dst, '"')
	return dst
}

func Quote(dst, src []byte) []byte { return AppendQuote(dst, src, Noop) }

// JSONKey generates the JSON format for an object key and terminates with the
// colon.
func JSONKey(dst, k []byte) (b []byte) {
	dst = append(dst, '"')
	dst = append(dst, k...)
	dst = append(dst, '"', ':')
	b = dst
	return
}
