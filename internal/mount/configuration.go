package mount

import "strings"

// RemoteConfiguration describes one rclone remote and its mount destination.
type RemoteConfiguration struct {
	Name           string   `mapstructure:"name" yaml:"name"`
	MountPoint     string   `mapstructure:"mount_point" yaml:"mount_point"`
	LogFile        string   `mapstructure:"log_file" yaml:"log_file"`
	ExtraArguments []string `mapstructure:"extra_arguments" yaml:"extra_arguments"`
}

// CommandConfiguration captures configuration values for the mount command.
type CommandConfiguration struct {
	Remotes     []RemoteConfiguration `mapstructure:"remotes"`
	RemotesFile string                `mapstructure:"remotes_file"`
}

// DefaultCommandConfiguration provides baseline configuration values for mounting.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Remotes:     nil,
		RemotesFile: "",
	}
}

// Sanitize trims configuration values without applying implicit defaults.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.RemotesFile = strings.TrimSpace(configuration.RemotesFile)
	sanitized.Remotes = make([]RemoteConfiguration, 0, len(configuration.Remotes))
	for _, remote := range configuration.Remotes {
		sanitizedRemote := remote
		sanitizedRemote.Name = strings.TrimSpace(remote.Name)
		sanitizedRemote.MountPoint = strings.TrimSpace(remote.MountPoint)
		sanitizedRemote.LogFile = strings.TrimSpace(remote.LogFile)
		if len(sanitizedRemote.Name) == 0 && len(sanitizedRemote.MountPoint) == 0 {
			continue
		}
		sanitized.Remotes = append(sanitized.Remotes, sanitizedRemote)
	}

	return sanitized
}
