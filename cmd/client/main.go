package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"net"
	"os"
	"time"

	"rectifier-gateway/internal/client"
)

var (
	addr = flag.String("a", "127.0.0.1:48300", "网关控制口地址")
	mode = flag.String("m", "get", "运行模式 (set/get/stop)")

	voltage        = flag.Float64("v", math.NaN(), "输出电压设定值 (41.0VDC - 58.5VDC)")
	currentValue   = flag.Float64("cv", math.NaN(), "输出电流限值 (5.5ADC - 62.5ADC)")
	currentPercent = flag.Float64("cp", math.NaN(), "输出电流限值百分比 (10% - 121%)")
	limitInput     = flag.Float64("l", math.NaN(), "输入电流限值 (弱电网/柴油发电机场景)")
	walkInEnable   = flag.String("we", "", "Walk-In 缓启动使能 (on/off)")
	walkInTime     = flag.Float64("wt", 0, "Walk-In 爬升时长 (秒)")
	restartOv      = flag.String("r", "", "过压后自动重启 (on/off)")
	permanent      = flag.Bool("p", false, "写入设备非易失存储 (离线命令)")

	username = flag.String("u", "", "控制口用户名")
	password = flag.String("pw", "", "控制口密码")
)

func main() {
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		fmt.Printf("连接网关失败: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	builder := client.NewCommandBuilder()
	reader := bufio.NewReader(conn)

	send := func(cmd string) {
		if _, err := fmt.Fprintln(conn, cmd); err != nil {
			fmt.Printf("发送失败: %v\n", err)
			os.Exit(1)
		}
		resp, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("读取响应失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf(">> %s\n<< %s", cmd, resp)
	}

	if *username != "" {
		send(builder.Auth(*username, *password))
	}

	switch *mode {
	case "set":
		if !math.IsNaN(*voltage) {
			send(builder.SetVoltage(*voltage, *permanent))
		}
		if !math.IsNaN(*currentValue) {
			send(builder.SetCurrentValue(*currentValue, *permanent))
		}
		if !math.IsNaN(*currentPercent) {
			send(builder.SetCurrentPercentage(*currentPercent, *permanent))
		}
		if !math.IsNaN(*limitInput) {
			send(builder.SetInputLimit(*limitInput))
		}
		if *walkInEnable != "" {
			send(builder.SetWalkIn(*walkInEnable == "on", *walkInTime))
		}
		if *restartOv != "" {
			send(builder.SetRestartOvervoltage(*restartOv == "on"))
		}
	case "get":
		send(builder.Get())
	case "stop":
		send(builder.Stop())
	default:
		fmt.Printf("未知模式: %s (set/get/stop)\n", *mode)
		os.Exit(1)
	}
}
