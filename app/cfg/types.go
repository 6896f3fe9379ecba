package cfg

type Cfg struct {
	// Application configuration
	CalendarsDir string
	Port         string
	DBPath       string
	PollInterval int
	DisplayDays  int
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
