// Package ble implements mcumgr.Transport over the Simple Management
// Protocol's standard BLE GATT service, as a supplementary transport beyond
// the serial and UDP channels: MCUmgr devices commonly expose SMP over BLE
// in addition to (or instead of) a serial console.
package ble

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

var characteristicSMPUUID, _ = bluetooth.ParseUUID("da2e7828-fbce-4e01-ae9e-261174997c48")

// Transport is a BLE mcumgr.Transport. One notification subscription feeds
// a single-slot buffered channel that Recv drains; because only one request
// is ever outstanding, a channel of depth 1 is enough to bridge the
// notification callback to the synchronous Recv call.
type Transport struct {
	adapter *bluetooth.Adapter
	device  bluetooth.Device
	smpChar bluetooth.DeviceCharacteristic

	frames chan []byte
}

// Config names the device to connect to, by advertised name or address.
type Config struct {
	Name    string
	Address string
}

// Dial scans for a matching device, connects, and discovers the SMP
// characteristic, blocking until found or ctx is done.
func Dial(ctx context.Context, cfg Config) (*Transport, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	t := &Transport{
		adapter: adapter,
		frames:  make(chan []byte, 1),
	}

	var found bool
	var deviceAddr bluetooth.Address

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Scan blocks until StopScan; stop it if ctx ends before a match.
	go func() {
		<-scanCtx.Done()
		_ = adapter.StopScan()
	}()

	err := adapter.Scan(func(a *bluetooth.Adapter, sr bluetooth.ScanResult) {
		nameMatch := cfg.Name != "" && sr.LocalName() == cfg.Name
		addrMatch := cfg.Address != "" && sr.Address.String() == cfg.Address
		if !nameMatch && !addrMatch {
			return
		}

		deviceAddr = sr.Address
		found = true
		cancel()
		_ = adapter.StopScan()
	})
	if err != nil {
		return nil, fmt.Errorf("start ble scan: %w", err)
	}

	<-scanCtx.Done()
	_ = adapter.StopScan()

	if !found {
		return nil, errors.New("ble: device could not be found")
	}

	dev, err := adapter.Connect(deviceAddr, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(10 * time.Second),
		Timeout:           bluetooth.NewDuration(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("connect ble: %w", err)
	}
	t.device = dev

	if err := t.discoverCharacteristic(); err != nil {
		return nil, fmt.Errorf("discover smp characteristic: %w", err)
	}

	if err := t.subscribe(); err != nil {
		return nil, fmt.Errorf("subscribe to smp notifications: %w", err)
	}

	return t, nil
}

func (t *Transport) discoverCharacteristic() error {
	services, err := t.device.DiscoverServices([]bluetooth.UUID{bluetooth.ServiceUUIDSMP})
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	if len(services) != 1 {
		return errors.New("expected exactly one smp service")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{characteristicSMPUUID})
	if err != nil {
		return fmt.Errorf("discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return errors.New("smp characteristic not found")
	}

	t.smpChar = chars[0]
	return nil
}

func (t *Transport) subscribe() error {
	return t.smpChar.EnableNotifications(func(buf []byte) {
		cp := append([]byte(nil), buf...)
		select {
		case t.frames <- cp:
		default:
			// A frame arrived with none outstanding, or the previous one was
			// never drained; drop it rather than block the notification
			// callback, matching the single-outstanding-request model.
		}
	})
}

// Send writes packet without waiting for the peripheral's write response,
// the standard pattern for SMP-over-BLE.
func (t *Transport) Send(ctx context.Context, packet []byte) error {
	if _, err := t.smpChar.WriteWithoutResponse(packet); err != nil {
		return fmt.Errorf("write smp characteristic: %w", err)
	}
	return nil
}

// Recv waits for the next notified frame until ctx is done.
func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.frames:
		return frame, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: ble recv", context.DeadlineExceeded)
	}
}

// Reset drains any unconsumed notification left over from a prior attempt.
func (t *Transport) Reset() error {
	select {
	case <-t.frames:
	default:
	}
	return nil
}

// Close disconnects from the peripheral.
func (t *Transport) Close() error {
	if err := t.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect ble: %w", err)
	}
	return nil
}
