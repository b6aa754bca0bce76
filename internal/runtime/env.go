package runtime

import "strings"

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// UnsetEnv removes every entry for key from env.
func UnsetEnv(env []string, key string) []string {
	prefix := key + "="
	out := env[:0]
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// LookupEnv returns the value of key in env.
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix), true
		}
	}
	return "", false
}

// MergeMissing adds vars to env for keys env does not define yet. Existing
// values always win.
func MergeMissing(env []string, vars map[string]string) []string {
	for k, v := range vars {
		if _, ok := LookupEnv(env, k); ok {
			continue
		}
		env = append(env, k+"="+v)
	}
	return env
}
