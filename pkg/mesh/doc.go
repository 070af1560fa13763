// Package mesh is the entry point to the hybrid mesh core.
//
// A Service owns one driver per radio technology and wires them to a peer
// registry, one scan controller per transport, the connection orchestrator
// and the event bus:
//
//	drivers := []transport.Driver{ble.New(bleRadio), wifidirect.New(p2pRadio, cfg)}
//	svc := mesh.New(drivers, mesh.Config{})
//	if err := svc.Start(ctx); err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	sub := svc.Subscribe(eventbus.FamilyDiscovery)
//	_ = svc.StartScanAll(ctx)
//	for ev := range sub.C() {
//		fmt.Println(ev.Discovery.Name)
//	}
//
// Every operation is bounded by Config.OperationTimeout. An operation that
// exceeds it fails with a TIMEOUT transport error.
package mesh
