package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Retargeted signal kinds (RETARGETED_VALUE).
const (
	RetargetJointTorque  = "joint_torque"
	RetargetMotorCurrent = "motor_current"
	RetargetForce        = "force"
)

// Signal sources (SIGNAL_SOURCE, VELOCITY_SOURCE).
const (
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
	SourceADC    = "adc"
	SourceIMU    = "imu"
	SourceMock   = "mock"
)

// Actuator command codecs (ACTUATOR_CODEC).
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDRetargeting string
	MQTTClientIDWeight      string
	MQTTClientIDConsole     string
	MQTTClientIDProducer    string

	// Topics
	TopicActuatorCommands string
	TopicContacts         string
	TopicJointValues      string
	TopicJointVelocities  string
	TopicForcePrefix      string // force port N is published on <prefix>/<N>
	TopicWeight           string

	// Control loop
	PeriodMS             int
	AcquisitionTimeoutMS int
	MinIntensity         float64 // normalized [0,1]
	ActuatorMaxIntensity int     // wire intensity for a command of 1.0
	ActuatorPrefix       string
	ActuatorCodec        string

	// Signal acquisition
	RetargetedValue string
	SignalSource    string
	SerialPort      string
	SerialBaudRate  int
	ADCI2CBus       string
	ADCI2CAddr      uint16
	ADCUnitsPerVolt float64

	// Velocity gating
	UseVelocity      bool
	MaxVelocity      float64
	VelocitySource   string
	IMUSPIDevice     string
	IMUCSPin         string
	IMUGyroLSBPerDPS float64 // 131 at the default ±250°/s range

	// Filter
	FilterEnabled  bool
	FilterCutoffHz float64

	// Groups
	PublishContacts    bool
	ActuatorGroupsFile string

	// RPC server
	RPCServerPort int
	RPCJWTSecret  string

	// Logging
	LogFile       string
	LogDebug      bool
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Weight display
	WeightInputPorts      []string
	WeightMin             float64
	WeightOffset          float64
	WeightUseZOnly        bool
	DisplayUpdateInterval int // milliseconds
	DisplayOLED           bool
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: set once by InitGlobal, read through Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional key at its default.
func Default() *Config {
	return &Config{
		MQTTBroker:              "tcp://localhost:1883",
		MQTTClientIDRetargeting: "haptic-retargeting",
		MQTTClientIDWeight:      "haptic-weight-display",
		MQTTClientIDConsole:     "haptic-console-subscriber",
		MQTTClientIDProducer:    "haptic-producer-mock",

		TopicActuatorCommands: "haptic/actuators/commands",
		TopicContacts:         "haptic/contacts",
		TopicJointValues:      "haptic/joints/values",
		TopicJointVelocities:  "haptic/joints/velocities",
		TopicForcePrefix:      "haptic/force",
		TopicWeight:           "haptic/weight",

		PeriodMS:             20,
		AcquisitionTimeoutMS: 5000,
		MinIntensity:         0,
		ActuatorMaxIntensity: 127,
		ActuatorPrefix:       "iFeelSuit::haptic::Node#",
		ActuatorCodec:        CodecJSON,

		RetargetedValue: RetargetJointTorque,
		SignalSource:    SourceMQTT,
		SerialBaudRate:  115200,
		ADCI2CAddr:      0x48,
		ADCUnitsPerVolt: 1,

		MaxVelocity:      1,
		VelocitySource:   SourceMQTT,
		IMUGyroLSBPerDPS: 131,

		FilterCutoffHz: 5,

		RPCServerPort: 8090,

		LogMaxSizeMB:  10,
		LogMaxBackups: 3,
		LogMaxAgeDays: 28,

		WeightMin:             1,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads KEY=VALUE lines on top of Default. It does not validate.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployments inject the broker and secrets without
// editing the settings file.
func applyEnvOverrides(c *Config) {
	if broker := os.Getenv("HAPTIC_MQTT_BROKER"); broker != "" {
		c.MQTTBroker = broker
	}
	if secret := os.Getenv("HAPTIC_RPC_JWT_SECRET"); secret != "" {
		c.RPCJWTSecret = secret
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_RETARGETING":
		c.MQTTClientIDRetargeting = value
	case "MQTT_CLIENT_ID_WEIGHT":
		c.MQTTClientIDWeight = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_ACTUATOR_COMMANDS":
		c.TopicActuatorCommands = value
	case "TOPIC_CONTACTS":
		c.TopicContacts = value
	case "TOPIC_JOINT_VALUES":
		c.TopicJointValues = value
	case "TOPIC_JOINT_VELOCITIES":
		c.TopicJointVelocities = value
	case "TOPIC_FORCE_PREFIX":
		c.TopicForcePrefix = strings.TrimSuffix(value, "/")
	case "TOPIC_WEIGHT":
		c.TopicWeight = value

	// Control loop
	case "PERIOD_MS":
		return parsePositiveInt(key, value, &c.PeriodMS)
	case "ACQUISITION_TIMEOUT_MS":
		return parsePositiveInt(key, value, &c.AcquisitionTimeoutMS)
	case "MIN_INTENSITY":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MIN_INTENSITY %q: %w", value, err)
		}
		if v < 0 || v >= 1 {
			return fmt.Errorf("MIN_INTENSITY must be in [0,1), got %g", v)
		}
		c.MinIntensity = v
	case "ACTUATOR_MAX_INTENSITY":
		return parsePositiveInt(key, value, &c.ActuatorMaxIntensity)
	case "ACTUATOR_PREFIX":
		c.ActuatorPrefix = value
	case "ACTUATOR_CODEC":
		switch value {
		case CodecJSON, CodecMsgpack:
			c.ActuatorCodec = value
		default:
			return fmt.Errorf("ACTUATOR_CODEC must be %q or %q, got %q", CodecJSON, CodecMsgpack, value)
		}

	// Signal acquisition
	case "RETARGETED_VALUE":
		switch value {
		case RetargetJointTorque, RetargetMotorCurrent, RetargetForce:
			c.RetargetedValue = value
		default:
			return fmt.Errorf("RETARGETED_VALUE must be one of %s, %s, %s; got %q",
				RetargetJointTorque, RetargetMotorCurrent, RetargetForce, value)
		}
	case "SIGNAL_SOURCE":
		switch value {
		case SourceMQTT, SourceSerial, SourceADC, SourceMock:
			c.SignalSource = value
		default:
			return fmt.Errorf("invalid SIGNAL_SOURCE %q", value)
		}
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return parsePositiveInt(key, value, &c.SerialBaudRate)
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, err)
		}
		c.ADCI2CAddr = uint16(addr)
	case "ADC_UNITS_PER_VOLT":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ADC_UNITS_PER_VOLT %q: %w", value, err)
		}
		c.ADCUnitsPerVolt = v

	// Velocity gating
	case "USE_VELOCITY":
		return parseBool(key, value, &c.UseVelocity)
	case "MAX_VELOCITY":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_VELOCITY %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("MAX_VELOCITY must be positive, got %g", v)
		}
		c.MaxVelocity = v
	case "VELOCITY_SOURCE":
		switch value {
		case SourceMQTT, SourceSerial, SourceIMU, SourceMock:
			c.VelocitySource = value
		default:
			return fmt.Errorf("invalid VELOCITY_SOURCE %q", value)
		}
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_GYRO_LSB_PER_DPS":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_LSB_PER_DPS %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("IMU_GYRO_LSB_PER_DPS must be positive, got %g", v)
		}
		c.IMUGyroLSBPerDPS = v

	// Filter
	case "FILTER_ENABLED":
		return parseBool(key, value, &c.FilterEnabled)
	case "FILTER_CUTOFF_HZ":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FILTER_CUTOFF_HZ %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("FILTER_CUTOFF_HZ must be positive, got %g", v)
		}
		c.FilterCutoffHz = v

	// Groups
	case "PUBLISH_CONTACTS":
		return parseBool(key, value, &c.PublishContacts)
	case "ACTUATOR_GROUPS_FILE":
		c.ActuatorGroupsFile = value

	// RPC server
	case "RPC_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RPC_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("RPC_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.RPCServerPort = port
	case "RPC_JWT_SECRET":
		c.RPCJWTSecret = value

	// Logging
	case "LOG_FILE":
		c.LogFile = value
	case "LOG_DEBUG":
		return parseBool(key, value, &c.LogDebug)
	case "LOG_MAX_SIZE_MB":
		return parsePositiveInt(key, value, &c.LogMaxSizeMB)
	case "LOG_MAX_BACKUPS":
		return parsePositiveInt(key, value, &c.LogMaxBackups)
	case "LOG_MAX_AGE_DAYS":
		return parsePositiveInt(key, value, &c.LogMaxAgeDays)

	// Weight display
	case "WEIGHT_INPUT_PORTS":
		c.WeightInputPorts = splitList(value)
	case "WEIGHT_MIN":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid WEIGHT_MIN %q: %w", value, err)
		}
		c.WeightMin = v
	case "WEIGHT_OFFSET":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid WEIGHT_OFFSET %q: %w", value, err)
		}
		c.WeightOffset = v
	case "WEIGHT_USE_Z_ONLY":
		return parseBool(key, value, &c.WeightUseZOnly)
	case "DISPLAY_UPDATE_INTERVAL":
		return parsePositiveInt(key, value, &c.DisplayUpdateInterval)
	case "DISPLAY_OLED":
		return parseBool(key, value, &c.DisplayOLED)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePositiveInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, v)
	}
	*dst = v
	return nil
}

func parseBool(key, value string, dst *bool) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SamplingHz returns the control loop rate.
func (c *Config) SamplingHz() float64 {
	return 1000 / float64(c.PeriodMS)
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicActuatorCommands == "" {
		return fmt.Errorf("TOPIC_ACTUATOR_COMMANDS is required")
	}
	if c.ActuatorGroupsFile == "" {
		return fmt.Errorf("ACTUATOR_GROUPS_FILE is required")
	}
	if c.SignalSource == SourceSerial && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required when SIGNAL_SOURCE=serial")
	}
	if c.RetargetedValue == RetargetForce && c.SignalSource != SourceMQTT && c.SignalSource != SourceMock {
		return fmt.Errorf("RETARGETED_VALUE=force needs SIGNAL_SOURCE=mqtt or mock, got %s", c.SignalSource)
	}
	if c.UseVelocity && c.VelocitySource == SourceIMU && (c.IMUSPIDevice == "" || c.IMUCSPin == "") {
		return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required when VELOCITY_SOURCE=imu")
	}
	if c.UseVelocity && c.VelocitySource == SourceSerial && c.SignalSource != SourceSerial {
		return fmt.Errorf("VELOCITY_SOURCE=serial needs SIGNAL_SOURCE=serial")
	}
	if c.FilterEnabled && c.FilterCutoffHz >= c.SamplingHz()/2 {
		return fmt.Errorf("FILTER_CUTOFF_HZ %g must be below half the loop rate (%g Hz)", c.FilterCutoffHz, c.SamplingHz())
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
