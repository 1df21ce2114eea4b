package utils

import (
	"os"
	"strings"

	"github.com/instkit/instclean/internal/constants"
	"github.com/joho/godotenv"
)

// GetHostProcCmdline returns the path to /proc/cmdline. Overridable for tests.
func GetHostProcCmdline() string {
	proc := os.Getenv("HOST_PROC_CMDLINE")
	if proc == "" {
		return "/proc/cmdline"
	}
	return proc
}

// GetHostProcMounts returns the path to the live mount table. Overridable for tests.
func GetHostProcMounts() string {
	mounts := os.Getenv("HOST_PROC_MOUNTS")
	if mounts == "" {
		return "/proc/mounts"
	}
	return mounts
}

// GetHostSysRoot returns the root under which /sys and /dev live. Overridable for tests.
func GetHostSysRoot() string {
	root := os.Getenv("HOST_SYS_ROOT")
	if root == "" {
		return "/"
	}
	return root
}

// GetHostConfigFile returns the path to the optional config env file. Overridable for tests.
func GetHostConfigFile() string {
	cfg := os.Getenv("HOST_CONFIG_FILE")
	if cfg == "" {
		return constants.ConfigFile
	}
	return cfg
}

func ReadCMDLineArg(arg string) []string {
	cmdLine, err := os.ReadFile(GetHostProcCmdline())
	if err != nil {
		return []string{}
	}
	res := []string{}
	fields := strings.Fields(string(cmdLine))
	for _, f := range fields {
		if strings.HasPrefix(f, arg) {
			dat := strings.Split(f, arg)
			res = append(res, dat[1])
		}
	}
	return res
}

// ReadEnv will read an env file (key=value) and return a nice map.
func ReadEnv(file string) (map[string]string, error) {
	var envMap map[string]string
	var err error

	f, err := os.Open(file)
	if err != nil {
		return envMap, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	envMap, err = godotenv.Parse(f)
	if err != nil {
		return envMap, err
	}

	return envMap, err
}

// CleanupSlice will clean a slice of strings of empty items.
func CleanupSlice(slice []string) []string {
	var cleanSlice []string
	for _, item := range slice {
		if strings.TrimSpace(item) == "" {
			continue
		}
		cleanSlice = append(cleanSlice, item)
	}
	return cleanSlice
}

// UniqueSlice removes duplicated entries from a slice, keeping first-seen order.
func UniqueSlice(slice []string) []string {
	keys := make(map[string]bool)
	var list []string
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// CreateIfNotExists makes a directory path if it's not already there.
func CreateIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModePerm)
	}
	return nil
}
