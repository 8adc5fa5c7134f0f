package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/cloudsense/pkg/comm/mqtt"
	"github.com/robotalks/cloudsense/pkg/env"
	fx "github.com/robotalks/cloudsense/pkg/framework"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/node"
	"github.com/robotalks/cloudsense/pkg/rig"
)

func init() {
	node.SetupFlags()
	link.SetupFlags()
	env.SetupFlags()
	rig.SetupFlags()
}

func newLink(conf *link.Config, r *rig.Rig, session *mqtt.Session) (link.Link, io.Closer, error) {
	switch conf.Kind {
	case link.KindRadio:
		l, err := conf.NewRadio(r.Radio)
		return l, nil, err
	case link.KindSerial:
		if conf.SerialDevice == "-" {
			l, err := conf.NewSerial(os.Stdout)
			return l, nil, err
		}
		return conf.OpenSerial()
	case link.KindMQTT:
		if session == nil {
			return nil, nil, fmt.Errorf("%w: mqtt link requires -mqtt", link.ErrNotReady)
		}
		return mqtt.NewUplink(session), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown link %q", conf.Kind)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	nodeConf, linkConf := node.Default(), link.Default()
	labels := nodeConf.Labels()
	hw, err := rig.Default().New(nodeConf.Width, nodeConf.Height, len(labels))
	if err != nil {
		glog.Exitf("hardware: %v", err)
	}
	session, err := env.Default().NewSession(mqtt.Meta{
		Labels:  labels,
		Width:   nodeConf.Width,
		Height:  nodeConf.Height,
		Link:    linkConf.Kind,
		Payload: nodeConf.Payload,
	})
	if err != nil {
		glog.Exitf("mqtt: %v", err)
	}
	uplink, closer, err := newLink(linkConf, hw, session)
	if err != nil {
		glog.Exitf("link: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	cycle, err := nodeConf.NewCycle(hw.Sensor, hw.Accel, hw.Done, uplink)
	if err != nil {
		glog.Exitf("node: %v", err)
	}

	runner := fx.NewRunner().HandleSignals()
	if session != nil {
		cycle.AddObserver(mqtt.NewPublisher(session))
		session.HandleCommands(cycle)
		runner.Go(session)
		glog.Infof("node %s on %s", session.Meta.NodeID, env.Default().BrokerURL)
	}
	if nodeConf.MetricsAddr != "" {
		metrics := node.NewMetrics()
		cycle.AddObserver(metrics)
		runner.Go(&node.Server{Addr: nodeConf.MetricsAddr, Metrics: metrics})
	}
	glog.Infof("%dx%d frames, %d classes, %s payload over %s",
		nodeConf.Width, nodeConf.Height, len(labels), cycle.Payload, linkConf.Kind)
	runner.Go(cycle)
	if err := runner.Wait(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}
