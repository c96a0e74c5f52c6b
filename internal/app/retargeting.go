// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/retargeting"
	"github.com/relabs-tech/haptic_retargeting/internal/rpc"
)

// RunRetargeting runs the control loop and its RPC server until ctx is
// cancelled or acquisition times out.
func RunRetargeting(ctx context.Context) error {
	cfg := config.Get()
	log.Println("starting haptic retargeting")

	gf, err := config.LoadGroups(cfg.ActuatorGroupsFile)
	if err != nil {
		return err
	}
	reg, err := groups.NewRegistry(gf, sampleWidth(cfg))
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDRetargeting)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctrl, sigs, err := buildController(cfg, reg, client)
	if err != nil {
		return err
	}
	defer sigs.Close()

	var verifier *rpc.Verifier
	if cfg.RPCJWTSecret != "" {
		if verifier, err = rpc.NewVerifier(cfg.RPCJWTSecret); err != nil {
			return err
		}
	} else {
		log.Println("WARNING: RPC_JWT_SECRET not set, RPC endpoints are unauthenticated")
	}
	server := rpc.NewServer(ctrl, verifier)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.RPCServerPort))
	})

	err = g.Wait()
	log.Printf("haptic retargeting stopped (%s)", ctrl.State())
	return err
}

// buildController wires the signal readers and the MQTT sink around reg.
func buildController(cfg *config.Config, reg *groups.Registry, client mqtt.Client) (*retargeting.Controller, *signals, error) {
	codec, err := actuator.CodecFor(cfg.ActuatorCodec)
	if err != nil {
		return nil, nil, err
	}

	sigs, err := openSignals(cfg, reg, client)
	if err != nil {
		return nil, nil, err
	}

	contactsTopic := ""
	if cfg.PublishContacts {
		contactsTopic = cfg.TopicContacts
	}
	sink := actuator.NewMQTTSink(client, cfg.TopicActuatorCommands, contactsTopic, codec)

	deps := retargeting.Deps{
		Groups:     reg,
		Joints:     sigs.joints,
		Velocities: sigs.velocities,
		Sink:       sink,
	}
	if cfg.PublishContacts {
		deps.Contacts = sink
	}

	ctrl, err := retargeting.New(retargeting.OptionsFromConfig(cfg), deps)
	if err != nil {
		sigs.Close()
		return nil, nil, err
	}
	return ctrl, sigs, nil
}
