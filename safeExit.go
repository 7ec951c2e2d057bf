package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var SafeExitInst *SafeExit

func InitSafeExit() {
	SafeExitInst = new(SafeExit)
	go SafeExitInst.ListenSignal()
}

// SafeExit 收到退出信号时依次执行已注册的函数, 再次收到信号则强制退出
type SafeExit struct {
	funcs   []func()
	mu      sync.Mutex
	exiting bool
}

func (s *SafeExit) Register(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs = append(s.funcs, f)
}

func (s *SafeExit) exit() {
	s.mu.Lock()
	if s.exiting {
		s.mu.Unlock()
		os.Exit(1)
	}
	s.exiting = true
	funcs := append([]func(){}, s.funcs...)
	s.mu.Unlock()

	for _, f := range funcs {
		f()
	}
}

func (s *SafeExit) ListenSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	for singal := range sigs {
		switch singal {
		case syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
			fmt.Fprintf(os.Stderr, "收到系统信号 %d, 正在停止任务, 请稍后\n", singal)
			s.exit()
		}
	}
}
