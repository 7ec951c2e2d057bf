package main

func main() {
	// 开始安全退出任务
	InitSafeExit()
	// 初始化配置, 日志, 开始任务
	Execute()
}
