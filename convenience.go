package subprocess

// Call spawns cmd, waits for it to finish, and returns its exit code.
// A child killed or stopped by a signal reports exit code -1.
func Call(cmd []string, opts *Options) (int, error) {
	p, err := Spawn(cmd, opts)
	if err != nil {
		return -1, err
	}
	status, err := p.Wait()
	if err != nil {
		return -1, err
	}
	if status.Exited() {
		return status.ExitCode(), nil
	}
	return -1, nil
}

// CheckCall is Call, but returns an *ExitError for anything other than a
// clean zero exit.
func CheckCall(cmd []string, opts *Options) error {
	p, err := Spawn(cmd, opts)
	if err != nil {
		return err
	}
	status, err := p.Wait()
	if err != nil {
		return err
	}
	if !status.Success() {
		return &ExitError{Cmd: cmd, Status: status}
	}
	return nil
}

// CheckOutput spawns cmd with its stdout piped, collects all of it, and
// returns *ExitError — carrying whatever stdout was produced — on a
// non-zero exit.
func CheckOutput(cmd []string, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = &Options{}
	}
	withPipe := *opts
	withPipe.Stdout = PIPE

	p, err := Spawn(cmd, &withPipe)
	if err != nil {
		return nil, err
	}

	stdout, _, err := p.Communicate(CommunicateOptions{})
	if err != nil {
		return stdout, err
	}

	status, err := p.Wait()
	if err != nil {
		return stdout, err
	}
	if !status.Success() {
		return stdout, &ExitError{Cmd: cmd, Status: status, Stdout: stdout}
	}
	return stdout, nil
}

// Popen is an alias of Spawn, kept for callers translating code from a
// scripting-runtime subprocess API that names its constructor Popen.
func Popen(cmd []string, opts *Options) (*Process, error) {
	return Spawn(cmd, opts)
}
