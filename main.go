package main

import (
	"fmt"

	"github.com/corridors/server/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
