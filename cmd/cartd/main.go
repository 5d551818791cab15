package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/cart"
	"github.com/robotalks/cartbus/pkg/config"
	fx "github.com/robotalks/cartbus/pkg/framework"
	"github.com/robotalks/cartbus/pkg/metrics"
	"github.com/robotalks/cartbus/pkg/remote"
)

const (
	readyTimeout   = 3 * time.Second
	connectTimeout = 10 * time.Second
)

func init() {
	config.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exit(err)
	}
	device, err := conf.Device()
	if err != nil {
		glog.Exit(err)
	}

	reg := metrics.NewRegistry()
	b, err := conf.OpenBus(reg)
	if err != nil {
		glog.Exitf("open bus %s: %v", conf.BusURL, err)
	}

	opts, prefix, err := remote.ClientOptionsFromURL(conf.MQTTURL)
	if err != nil {
		glog.Exitf("invalid MQTT URL: %v", err)
	}
	prefix += device + "/"
	opts.SetWill(prefix+remote.TopicStatus, "offline", 0, true)
	if opts.ClientID == "" {
		opts.SetClientID("cartd-" + device)
	}
	q := remote.NewQueue(opts, prefix)

	d := cart.NewDispatcher(b, remote.NewConsole(q)).WithVerbose(conf.Verbose)
	r := remote.New(d, q)
	q.Sub(remote.TopicCmd, r.HandleCmd)

	runner := fx.NewRunner().HandleSignals().Go(b)
	ctx, cancel := context.WithTimeout(runner.Context, readyTimeout)
	err = b.WaitReady(ctx)
	cancel()
	if err != nil {
		glog.Exitf("bus %s not ready: %v", conf.BusURL, err)
	}

	if token := q.Connect(); !token.WaitTimeout(connectTimeout) {
		glog.Exitf("connect %s: timeout", conf.MQTTURL)
	} else if err := token.Error(); err != nil {
		glog.Exitf("connect %s: %v", conf.MQTTURL, err)
	}
	q.PubWith(remote.TopicStatus, []byte("online"), 0, true)
	glog.Infof("cartd %s on %s, topics %s*", device, conf.BusURL, prefix)

	runner.Go(r)
	if conf.MetricsAddr != "" {
		runner.Go(fx.HTTPServer(conf.MetricsAddr, metrics.Handler(reg)))
	}
	err = runner.Wait()

	q.PubWith(remote.TopicStatus, []byte("offline"), 0, true).WaitTimeout(time.Second)
	q.Close()
	if err != nil {
		glog.Exit(err)
	}
}
