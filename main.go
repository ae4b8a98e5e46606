package main

import (
	"github.com/loxvm/loxvm/cmd"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.App().Execute(); err != nil {
		logrus.Fatal(err)
	}
}
