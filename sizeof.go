package pollchan

const (
	sizeOfCacheLine    = 128
	sizeOfAtomicUint32 = 4
)
