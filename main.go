// veer 是 VEER 助手的后端：API服务、本地系统代理和备份工具
package main

import "github.com/veerhq/veer/internal/cli"

func main() {
	cli.Execute()
}
