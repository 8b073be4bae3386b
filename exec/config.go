package exec

import "os"

// config separates settings applied at construction (global) from settings
// applied for a single run (local). Local values win and are reset after Run.
type config struct {
	globalEnv  map[string]string
	globalDir  string
	inheritEnv bool

	localEnv map[string]string
	localDir string
}

func newConfig() *config {
	return &config{
		globalEnv: make(map[string]string),
		localEnv:  make(map[string]string),
	}
}

func (c *config) clone() *config {
	clone := newConfig()
	clone.globalDir = c.globalDir
	clone.inheritEnv = c.inheritEnv
	for k, v := range c.globalEnv {
		clone.globalEnv[k] = v
	}
	return clone
}

func (c *config) environ() []string {
	env := []string{}
	if c.inheritEnv {
		env = os.Environ()
	}
	for k, v := range c.globalEnv {
		if _, ok := c.localEnv[k]; ok {
			continue
		}
		env = append(env, k+"="+v)
	}
	for k, v := range c.localEnv {
		env = append(env, k+"="+v)
	}
	return env
}

func (c *config) dir() string {
	if c.localDir != "" {
		return c.localDir
	}
	return c.globalDir
}

func (c *config) resetLocal() {
	c.localEnv = make(map[string]string)
	c.localDir = ""
}
