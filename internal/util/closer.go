package util

// DoOnErrOrPanic runs f when *err is non-nil at the time the deferred call executes, or when the goroutine is
// panicking. A panic is re-raised after f runs. It must be deferred with a pointer to a named error result:
//
//	defer util.DoOnErrOrPanic(&retErr, func() {
//		_ = tx.Rollback()
//	})
func DoOnErrOrPanic(err *error, f func()) {
	p := recover()
	if *err != nil || p != nil {
		f()
	}
	if p != nil {
		panic(p)
	}
}
