package http

type Config struct {
	Host string `mapstructure:"host"`
	Port uint   `mapstructure:"port"`
}
