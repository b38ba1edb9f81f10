package main

import "github.com/huanfeng/apkparse/cmd"

func main() {
	cmd.Execute()
}
