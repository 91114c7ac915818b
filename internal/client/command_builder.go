package client

import (
	"strconv"
)

// CommandBuilder 构造控制口的行命令 (见 control.Handler 的命令格式)。
type CommandBuilder struct{}

func NewCommandBuilder() *CommandBuilder {
	return &CommandBuilder{}
}

func (b *CommandBuilder) Auth(username, password string) string {
	return "AUTH " + username + " " + password
}

func (b *CommandBuilder) SetVoltage(voltage float64, permanent bool) string {
	return withPerm("SET VOLTAGE "+formatFloat(voltage), permanent)
}

func (b *CommandBuilder) SetCurrentValue(current float64, permanent bool) string {
	return withPerm("SET CURRENT "+formatFloat(current), permanent)
}

func (b *CommandBuilder) SetCurrentPercentage(percent float64, permanent bool) string {
	return withPerm("SET CURRENT-PERCENT "+formatFloat(percent), permanent)
}

func (b *CommandBuilder) SetInputLimit(current float64) string {
	return "SET INPUT-LIMIT " + formatFloat(current)
}

func (b *CommandBuilder) SetWalkIn(enable bool, seconds float64) string {
	if !enable {
		return "SET WALKIN OFF"
	}
	return "SET WALKIN ON " + formatFloat(seconds)
}

func (b *CommandBuilder) SetRestartOvervoltage(enable bool) string {
	if enable {
		return "SET RESTART-OV ON"
	}
	return "SET RESTART-OV OFF"
}

func (b *CommandBuilder) Get() string {
	return "GET"
}

func (b *CommandBuilder) Stop() string {
	return "STOP"
}

func withPerm(cmd string, permanent bool) string {
	if permanent {
		return cmd + " PERM"
	}
	return cmd
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
