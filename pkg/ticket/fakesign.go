package ticket

// maxCounter is the last nonce value the weak-signature search tries.
const maxCounter = 0xFFFF

// Attempt is one step of the weak-signature search.
type Attempt struct {
	Counter uint16
	Digest  [DigestSize]byte
}

// Weak reports whether the digest starts with a zero byte, which legacy
// verifiers accept in place of a real signature check.
func (a Attempt) Weak() bool {
	return a.Digest[0] == 0
}

// Result summarizes a completed search.
type Result struct {
	Attempt
	// Attempts is the number of digests computed.
	Attempts int
	// Exhausted is set when no counter produced a weak digest. The nonce is
	// then left at 0xFFFF.
	Exhausted bool
}

// WeakSearch walks the nonce field of a common block from 0 to 0xFFFF,
// hashing the block after each write, and stops at the first weak digest.
type WeakSearch struct {
	block  CommonBlock
	digest func(CommonBlock) [DigestSize]byte
	next   int
	found  bool
}

// NewWeakSearch returns a search over cb. Each call to Next mutates cb.
func NewWeakSearch(cb CommonBlock) *WeakSearch {
	return newWeakSearch(cb, CommonBlock.Digest)
}

func newWeakSearch(cb CommonBlock, digest func(CommonBlock) [DigestSize]byte) *WeakSearch {
	return &WeakSearch{block: cb, digest: digest}
}

// Next writes the next counter, hashes the block and returns the attempt.
// It returns false once a weak digest has been returned or the range is spent.
func (s *WeakSearch) Next() (Attempt, bool) {
	if s.found || s.next > maxCounter {
		return Attempt{}, false
	}

	counter := uint16(s.next)
	s.next++

	s.block.SetPadding(counter)
	a := Attempt{Counter: counter, Digest: s.digest(s.block)}
	s.found = a.Weak()
	return a, true
}

// Reset restarts the search from counter 0. The block is not modified until
// the next call to Next.
func (s *WeakSearch) Reset() {
	s.next = 0
	s.found = false
}

// Run resets the search and drives it to completion.
func (s *WeakSearch) Run() Result {
	s.Reset()

	var res Result
	for {
		a, ok := s.Next()
		if !ok {
			break
		}
		res.Attempt = a
		res.Attempts++
	}
	res.Exhausted = !res.Weak()
	return res
}

// Fakesign wipes the signature and device binding of the ticket in buf and
// searches for a nonce that gives the common block a weak digest.
//
// Malformed input is left untouched: if buf cannot be classified, Fakesign
// does nothing. Use FakesignResult to observe the failure.
func Fakesign(buf []byte) {
	_, _ = FakesignResult(buf)
}

// FakesignResult is Fakesign with the classification error and the search
// outcome reported. An exhausted search is not an error.
func FakesignResult(buf []byte) (Result, error) {
	kind, _, err := Classify(buf)
	if err != nil {
		return Result{}, err
	}

	clear(buf[signatureOffset : signatureOffset+kind.SignatureSize()])

	cb := commonBlockAt(buf, kind.BlockSize())
	cb.wipeDeviceBinding()

	return NewWeakSearch(cb).Run(), nil
}

// isFakesigned reports whether the signature payload is zeroed and the
// common block digest is weak.
func isFakesigned(buf []byte, kind Kind, cb CommonBlock) bool {
	for _, b := range buf[signatureOffset : signatureOffset+kind.SignatureSize()] {
		if b != 0 {
			return false
		}
	}
	d := cb.Digest()
	return d[0] == 0
}
