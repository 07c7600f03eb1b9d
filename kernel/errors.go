package kernel

import "errors"

var (
	// ErrUnknownProcess is returned by any kernel method addressing a Pid
	// that does not currently exist.
	ErrUnknownProcess = errors.New("redshirt: kernel: unknown process")

	// ErrUnknownThread is returned by any kernel method addressing a
	// ThreadId that is not currently parked or running in the named
	// process.
	ErrUnknownThread = errors.New("redshirt: kernel: unknown thread")

	// ErrInterfaceNotAvailable is the error a process is finished with
	// when a thread of it was waiting for an interface that is dropped
	// (UnregisterWithWaiters) before ever being registered. A message
	// parked on such an interface gets a failed response instead, and an
	// import call waiting on it resumes with a zero value, not this error.
	ErrInterfaceNotAvailable = errors.New("redshirt: kernel: interface not available")

	// ErrNoResponseExpected is returned by AnswerMessage for
	// NextInterfaceMessageId, the sentinel reserved for the built-in
	// "interface" interface's wait loop: it is never a real outstanding
	// message, so answering it is always a programmer error on the
	// caller's part.
	ErrNoResponseExpected = errors.New("redshirt: kernel: message has no response expected")

	// ErrAlreadyAnswered is returned by AnswerMessage when mid has already
	// been answered or cancelled.
	ErrAlreadyAnswered = errors.New("redshirt: kernel: message already answered")

	// ErrAborted is the error a ProgramFinished outcome carries for a
	// process killed via Abort rather than one that trapped or returned
	// on its own.
	ErrAborted = errors.New("redshirt: kernel: process aborted")
)
