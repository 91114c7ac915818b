package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	CAN          CANConfig          `mapstructure:"can"`
	Device       DeviceConfig       `mapstructure:"device"`
	Control      ControlConfig      `mapstructure:"control"`
	Log          LogConfig          `mapstructure:"log"`
	Auth         AuthConfig         `mapstructure:"auth"`
	MessageQueue MessageQueueConfig `mapstructure:"message_queue"`
}

type CANConfig struct {
	Interface     string `mapstructure:"interface"`
	Bitrate       int    `mapstructure:"bitrate"`
	RestartMs     int    `mapstructure:"restart_ms"`
	ConfigureLink bool   `mapstructure:"configure_link"`
}

// DeviceConfig 整流模块的铭牌参数与轮询参数。
// 默认值对应 Emerson/Vertiv R48-3000e3 (62.5A == 121%, 3000W)，
// 其他型号 (R48-2000e3 / R48-5800e3) 只需覆盖铭牌部分。
type DeviceConfig struct {
	RatedCurrent       float64 `mapstructure:"rated_current"`        // A，对应 RatedPercentage
	RatedPercentageMin float64 `mapstructure:"rated_percentage_min"` // %
	RatedPercentageMax float64 `mapstructure:"rated_percentage_max"` // %
	RatedPercentage    float64 `mapstructure:"rated_percentage"`     // %
	RatedPower         float64 `mapstructure:"rated_power"`          // W
	VoltageMin         float64 `mapstructure:"voltage_min"`          // VDC
	VoltageMax         float64 `mapstructure:"voltage_max"`          // VDC
	CurrentMin         float64 `mapstructure:"current_min"`          // A
	TemperatureMin     float64 `mapstructure:"temperature_min"`      // °C 读数合理性下限
	TemperatureMax     float64 `mapstructure:"temperature_max"`      // °C 读数合理性上限
	InputVoltageMin    float64 `mapstructure:"input_voltage_min"`    // VAC
	InputVoltageMax    float64 `mapstructure:"input_voltage_max"`    // VAC

	SendIntervalSec    float64 `mapstructure:"send_interval_sec"`    // 设定值重发周期
	ReceiveIntervalSec float64 `mapstructure:"receive_interval_sec"` // 遥测请求周期
	CommandPacingMs    int     `mapstructure:"command_pacing_ms"`    // 命令间隔，防止打满设备接收缓冲
	MaxInvalidCount    int     `mapstructure:"max_invalid_count"`    // 连续越界样本阈值
	MaxUnchangedCount  int     `mapstructure:"max_unchanged_count"`  // 连续不变样本阈值
}

type ControlConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type MessageQueueConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	URL         string `mapstructure:"url"`
	VirtualHost string `mapstructure:"virtual_host"`
	Exchange    string `mapstructure:"exchange"`
	RoutingKey  string `mapstructure:"routing_key"`
	QueueName   string `mapstructure:"queue_name"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	Users []UserConfig `mapstructure:"users"`
}

type UserConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 填充 R48-3000e3 的铭牌默认值，配置文件只需覆盖差异项。
func setDefaults() {
	viper.SetDefault("can.interface", "can0")
	viper.SetDefault("can.bitrate", 125000)
	viper.SetDefault("can.restart_ms", 1500)

	viper.SetDefault("device.rated_current", 62.5)
	viper.SetDefault("device.rated_percentage_min", 10.0)
	viper.SetDefault("device.rated_percentage_max", 121.0)
	viper.SetDefault("device.rated_percentage", 121.0)
	viper.SetDefault("device.rated_power", 3000.0)
	viper.SetDefault("device.voltage_min", 41.0)
	viper.SetDefault("device.voltage_max", 58.5)
	viper.SetDefault("device.current_min", 5.5)
	viper.SetDefault("device.temperature_min", -40.0)
	viper.SetDefault("device.temperature_max", 60.0)
	viper.SetDefault("device.input_voltage_min", -40.0)
	viper.SetDefault("device.input_voltage_max", 60.0)

	viper.SetDefault("device.send_interval_sec", 15.0)
	viper.SetDefault("device.receive_interval_sec", 1.0)
	viper.SetDefault("device.command_pacing_ms", 200)
	viper.SetDefault("device.max_invalid_count", 32)
	viper.SetDefault("device.max_unchanged_count", 32)

	viper.SetDefault("control.host", "0.0.0.0")
	viper.SetDefault("control.port", 48300)
}
