// Package exec runs external commands with captured output.
//
// gitwire drives the git CLI for the parts of a checkout go-git cannot do
// (partial clone filters, sparse checkout). Executor is the seam: production
// code uses Command, tests substitute mocks.ExecutorMock.
//
//	git := exec.NewWrapper(exec.New(exec.WithInheritEnv()), "git")
//	res, err := git.WithDir(dir).WithContext(ctx).Run("rev-parse", "HEAD")
//	if err != nil {
//	    var execErr *exec.ExecError
//	    if errors.As(err, &execErr) {
//	        log.Print(execErr.Stderr)
//	    }
//	}
package exec
