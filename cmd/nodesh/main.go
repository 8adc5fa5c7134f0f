package main

import (
	"github.com/robotalks/cloudsense/pkg/cli/sh"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/node"
	"github.com/robotalks/cloudsense/pkg/rig"

	_ "github.com/robotalks/cloudsense/pkg/cli/cmds/pipeline"
)

func init() {
	node.SetupFlags()
	link.SetupFlags()
	rig.SetupFlags()
}

func main() {
	sh.Main()
}
