package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"123456"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
	// Policy 是排班用工约束的全部业务常量，来源于门店的用工制度。
	// 超编比例和请假期限这类数字没有定论，所以全部做成配置而不是写死在代码里。
	Policy Policy `envPrefix:"POLICY_"`
}

type Policy struct {
	MaxMonthsAhead        int `env:"MAX_MONTHS_AHEAD" envDefault:"3"`
	MinShiftMinutes       int `env:"MIN_SHIFT_MINUTES" envDefault:"60"`
	MaxShiftMinutes       int `env:"MAX_SHIFT_MINUTES" envDefault:"720"`
	DailyMaxMinutes       int `env:"DAILY_MAX_MINUTES" envDefault:"480"`
	WeeklyMaxMinutes      int `env:"WEEKLY_MAX_MINUTES" envDefault:"2640"`
	DailyOvertimeMinutes  int `env:"DAILY_OVERTIME_MINUTES" envDefault:"240"`
	WeeklyOvertimeMinutes int `env:"WEEKLY_OVERTIME_MINUTES" envDefault:"480"`
	MaxShiftsPerDay       int `env:"MAX_SHIFTS_PER_DAY" envDefault:"3"`
	MaxShiftsPerWeek      int `env:"MAX_SHIFTS_PER_WEEK" envDefault:"6"`
	MaxConsecutiveDays    int `env:"MAX_CONSECUTIVE_DAYS" envDefault:"6"`
	MinRestMinutes        int `env:"MIN_REST_MINUTES" envDefault:"480"`
	NightRestMinutes      int `env:"NIGHT_REST_MINUTES" envDefault:"660"`
	MaxWeekendDaysPerWeek int `env:"MAX_WEEKEND_DAYS_PER_WEEK" envDefault:"2"`

	// 店长手动排班时允许的超编比例（百分比），超过这个比例直接拒绝
	CapacityOverridePercent int `env:"CAPACITY_OVERRIDE_PERCENT" envDefault:"20"`
	// 请假需要提前多少小时提交
	LeaveDeadlineHours int `env:"LEAVE_DEADLINE_HOURS" envDefault:"12"`

	CheckInEarlyMinutes           int `env:"CHECK_IN_EARLY_MINUTES" envDefault:"15"`
	CheckInCloseBeforeEndMinutes  int `env:"CHECK_IN_CLOSE_BEFORE_END_MINUTES" envDefault:"10"`
	CheckOutEarlyBeforeEndMinutes int `env:"CHECK_OUT_EARLY_BEFORE_END_MINUTES" envDefault:"5"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
