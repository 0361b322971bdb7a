package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys. Each is bound to its environment variable and, when
// registered with BindFlags, to a command line flag of the same name.
const (
	KeyConfPath         = "conf-path"
	KeyCommandsConfPath = "commands-conf-path"
	KeyUsePTY           = "use-pty"
	KeyManagementPort   = "management-port"
	KeyLogFile          = "log-file"
	KeyLogLevel         = "log-level"
	KeyOutputLogDir     = "output-log-dir"
	KeyHistoryDSN       = "history-dsn"
	KeyQuitOnExit       = "quit-on-exit"
)

const (
	DefaultConfPath         = "discord-conf.json"
	DefaultCommandsConfPath = "commands-conf.json"
	DefaultLogFile          = "servermgr.log"
)

var envNames = map[string]string{
	KeyConfPath:         "ServerManagerBot_ConfPath",
	KeyCommandsConfPath: "ServerManagerBot_CommandsConfPath",
	KeyUsePTY:           "ServerManagerBot_UsePty",
	KeyManagementPort:   "ServerManagerBot_ManagementPort",
	KeyLogFile:          "ServerManagerBot_LogFile",
	KeyLogLevel:         "ServerManagerBot_LogLevel",
	KeyOutputLogDir:     "ServerManagerBot_OutputLogDir",
	KeyHistoryDSN:       "ServerManagerBot_HistoryDSN",
	KeyQuitOnExit:       "ServerManagerBot_QuitOnExit",
}

// EnvName returns the environment variable bound to key.
func EnvName(key string) string { return envNames[key] }

// Settings are the runtime options that come from the environment or flags.
type Settings struct {
	ConfPath         string
	CommandsConfPath string
	UsePTY           bool
	// ManagementPort is 0 when the listener is disabled.
	ManagementPort int
	// ManagementPortRaw is the unparsed value, kept for diagnostics.
	ManagementPortRaw string
	LogFile           string
	LogLevel          string
	OutputLogDir      string
	HistoryDSN        []string
	QuitOnExit        bool
}

// NewViper returns a viper instance with every setting bound to its
// environment variable and defaulted.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault(KeyConfPath, DefaultConfPath)
	v.SetDefault(KeyCommandsConfPath, DefaultCommandsConfPath)
	v.SetDefault(KeyLogFile, DefaultLogFile)
	v.SetDefault(KeyLogLevel, "info")
	return v
}

// BindFlags registers a flag per setting on fs and binds it into v.
// A flag given on the command line wins over the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String(KeyConfPath, DefaultConfPath, "bot settings file ($"+envNames[KeyConfPath]+")")
	fs.String(KeyCommandsConfPath, DefaultCommandsConfPath, "custom commands file ($"+envNames[KeyCommandsConfPath]+")")
	fs.String(KeyUsePTY, "", "run the server inside a pseudo-terminal: 1|yes|true ($"+envNames[KeyUsePTY]+")")
	fs.String(KeyManagementPort, "", "port of the localhost management listener ($"+envNames[KeyManagementPort]+")")
	fs.String(KeyLogFile, DefaultLogFile, "diagnostic log file, empty for stderr ($"+envNames[KeyLogFile]+")")
	fs.String(KeyLogLevel, "info", "diagnostic log level: debug|info|warn|error ($"+envNames[KeyLogLevel]+")")
	fs.String(KeyOutputLogDir, "", "directory for a rotating transcript of the server output ($"+envNames[KeyOutputLogDir]+")")
	fs.StringSlice(KeyHistoryDSN, nil, "lifecycle history sink DSN, repeatable ($"+envNames[KeyHistoryDSN]+")")
	fs.String(KeyQuitOnExit, "", "quit when the server exits on its own: 1|yes|true ($"+envNames[KeyQuitOnExit]+")")
	for key := range envNames {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return err
		}
	}
	return nil
}

// LoadSettings reads the settings out of v.
func LoadSettings(v *viper.Viper) Settings {
	s := Settings{
		ConfPath:          v.GetString(KeyConfPath),
		CommandsConfPath:  v.GetString(KeyCommandsConfPath),
		UsePTY:            ParseFlag(v.GetString(KeyUsePTY)),
		ManagementPortRaw: strings.TrimSpace(v.GetString(KeyManagementPort)),
		LogFile:           v.GetString(KeyLogFile),
		LogLevel:          v.GetString(KeyLogLevel),
		OutputLogDir:      v.GetString(KeyOutputLogDir),
		QuitOnExit:        ParseFlag(v.GetString(KeyQuitOnExit)),
	}
	if p, err := strconv.Atoi(s.ManagementPortRaw); err == nil && p > 0 && p <= 65535 {
		s.ManagementPort = p
	}
	for _, d := range v.GetStringSlice(KeyHistoryDSN) {
		for _, part := range strings.Split(d, ",") {
			if part = strings.TrimSpace(part); part != "" {
				s.HistoryDSN = append(s.HistoryDSN, part)
			}
		}
	}
	return s
}

// ParseFlag accepts 1, yes and true in any case.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "true":
		return true
	default:
		return false
	}
}
