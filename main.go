package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向运行中的看板进程发送 SIGHUP, 使其重新打开日志文件
func main() {
	pidFile := flag.String("pid", "bike-sharing.pid", "看板进程号文件")
	flag.Parse()

	data, err := os.ReadFile(*pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file: ", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		log.Fatalf("Invalid pid in %s: %q", *pidFile, data)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP: ", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
