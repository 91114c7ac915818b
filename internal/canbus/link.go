package canbus

import (
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// ConfigureLink 通过 ip link 配置 CAN 接口比特率并拉起链路。
// 需要 root 或 CAP_NET_ADMIN；容器内运行时通常在宿主机侧预先配置，
// 此时关闭 configure_link 即可。
func ConfigureLink(ifaceName string, bitrate, restartMs int, logger *zap.Logger) error {
	cmds := [][]string{
		{"ip", "link", "set", "down", ifaceName},
		{"ip", "link", "set", ifaceName, "type", "can",
			"bitrate", strconv.Itoa(bitrate),
			"restart-ms", strconv.Itoa(restartMs)},
		{"ip", "link", "set", "up", ifaceName},
	}

	for _, args := range cmds {
		out, err := exec.Command(args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%v: %w (%s)", args, err, out)
		}
	}

	logger.Info("Configured CAN link",
		zap.String("interface", ifaceName),
		zap.Int("bitrate", bitrate),
		zap.Int("restart_ms", restartMs))
	return nil
}
