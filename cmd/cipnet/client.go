package main

// Shared client setup for the CLI commands: merge config file and flags,
// build the logger, transport, capture writer, and CIP connection.

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tturner/cipnet/capture"
	"github.com/tturner/cipnet/cipclient"
	"github.com/tturner/cipnet/config"
	"github.com/tturner/cipnet/enip"
	"github.com/tturner/cipnet/epath"
	"github.com/tturner/cipnet/logging"
)

type options struct {
	Host           string
	Port           int
	Route          string
	TimeoutSeconds int
	ConfigFile     string
	LogLevel       string
	LogFile        string
	CaptureFile    string
}

var globalOpts options

type clientContext struct {
	conn    *cipclient.Connection
	logger  *zap.Logger
	capture *capture.Writer
}

// openClient connects to the configured target and returns a ready CIP
// connection with its teardown.
func openClient() (*clientContext, error) {
	var fileCfg *config.Config
	if globalOpts.ConfigFile != "" {
		var err error
		if fileCfg, err = config.Load(globalOpts.ConfigFile); err != nil {
			return nil, err
		}
	}

	opts := globalOpts
	if fileCfg != nil {
		if opts.Host == "" {
			opts.Host = fileCfg.Target.Host
		}
		if opts.Port == 44818 && fileCfg.Target.Port != 0 {
			opts.Port = fileCfg.Target.Port
		}
		if opts.Route == "" {
			opts.Route = fileCfg.Target.Route
		}
		if fileCfg.Target.TimeoutSeconds != 0 && opts.TimeoutSeconds == 5 {
			opts.TimeoutSeconds = fileCfg.Target.TimeoutSeconds
		}
		if opts.CaptureFile == "" {
			opts.CaptureFile = fileCfg.CaptureFile
		}
		if opts.LogLevel == "error" && fileCfg.Log.Level != "" {
			opts.LogLevel = fileCfg.Log.Level
		}
		if opts.LogFile == "" {
			opts.LogFile = fileCfg.Log.File
		}
	}
	if opts.Host == "" {
		return nil, fmt.Errorf("target host is required (--ip or config file)")
	}

	logger, err := logging.NewLogger(opts.LogLevel, opts.LogFile)
	if err != nil {
		return nil, err
	}

	cipCfg := cipclient.DefaultConfig()
	if fileCfg != nil {
		if cipCfg, err = fileCfg.ClientConfig(); err != nil {
			return nil, err
		}
	}
	if opts.Route != "" {
		if cipCfg.Route, err = epath.ParseRoute(opts.Route); err != nil {
			return nil, err
		}
	}

	enipCfg := enip.Config{
		Host:    opts.Host,
		Port:    opts.Port,
		Timeout: time.Duration(opts.TimeoutSeconds) * time.Second,
		Logger:  logger,
	}
	var capw *capture.Writer
	if opts.CaptureFile != "" {
		if capw, err = capture.NewWriter(opts.CaptureFile, uint16(opts.Port)); err != nil {
			return nil, err
		}
		enipCfg.Recorder = capw
	}

	conn := cipclient.NewConnection(cipCfg, enip.NewConnection(enipCfg), logger)
	if err := conn.Connect(); err != nil {
		if capw != nil {
			capw.Close()
		}
		return nil, err
	}
	return &clientContext{conn: conn, logger: logger, capture: capw}, nil
}

// close tears the session down in order: forward close if needed,
// unregister, socket close, then capture flush.
func (c *clientContext) close() {
	if err := c.conn.Disconnect(); err != nil {
		c.logger.Debug("disconnect failed", zap.Error(err))
	}
	if c.capture != nil {
		if err := c.capture.Close(); err != nil {
			c.logger.Debug("capture close failed", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}
