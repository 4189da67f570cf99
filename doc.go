/*
Package fbug supervises a hardware device over one or more serial links.

It classifies what the device prints into named states, follows state changes
by matching output lines against the actions of a state graph, applies the
properties of each entered state (such as a new baud rate) back to the
connection, and reopens device nodes that disappear and come back.

# Concept

A device is described by a YAML file (see package config): its connections,
its controls, its states and the transitions between them. The Monitor wires
three pieces together:

  - a state.Machine that owns the graph and the current state;
  - a connections.Supervisor that reads device output and applies properties;
  - a dispatch loop that feeds output events to the machine and fans out
    transitions to subscribers.

# Usage

	package main

	import (
		"context"
		"log"
		"os/signal"
		"syscall"

		"github.com/aretw0/fbug"
		"github.com/aretw0/fbug/pkg/config"
	)

	func main() {
		device, err := config.Load("board.yaml")
		if err != nil {
			log.Fatal(err)
		}

		mon, err := fbug.New(device)
		if err != nil {
			log.Fatal(err)
		}
		defer mon.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		transitions, cancel := mon.Subscribe(0)
		defer cancel()
		go func() {
			for ev := range transitions {
				log.Printf("%s -> %s", ev.From, ev.To)
			}
		}()

		if err := mon.Run(ctx); err != nil {
			log.Fatal(err)
		}
	}
*/
package fbug
