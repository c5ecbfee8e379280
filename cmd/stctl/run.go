package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stplatform/stcore/bytecode"
	"github.com/stplatform/stcore/clock"
	"github.com/stplatform/stcore/config"
	"github.com/stplatform/stcore/control"
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/retain"
	"github.com/stplatform/stcore/runtime"
	"github.com/stplatform/stcore/scheduler"
	"github.com/stplatform/stcore/stdlib"
	"github.com/stplatform/stcore/types"
)

type runFlags struct {
	runtimeBundle string
	ioBundle      string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a resource's cycle loop against a runtime/io bundle",
		Long: "Run wires the scheduler, I/O image, control socket, and retain store named by " +
			"the two bundles and drives the resource's cycle loop until interrupted. The program body " +
			"it executes comes from the bytecode container's task/resource metadata only: the source-to-IR " +
			"compiler this metadata was emitted by is out of scope here (spec §1), so every task runs an empty " +
			"program body — this command exercises the orchestration shell, not ST program semantics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResource(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.runtimeBundle, "runtime", "runtime.toml", "path to the runtime bundle")
	cmd.Flags().StringVar(&f.ioBundle, "io", "io.toml", "path to the io bundle")
	return cmd
}

func runResource(ctx context.Context, f runFlags) error {
	log := newLogger()

	rb, err := config.LoadRuntimeBundle(f.runtimeBundle)
	if err != nil {
		return err
	}
	ib, err := config.LoadIOBundle(f.ioBundle)
	if err != nil {
		return err
	}

	c, err := bytecode.Open(rb.Resource.BytecodePath)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := bytecode.Validate(c); err != nil {
		return err
	}
	if min, ok := config.CheckMinRuntimeVersion(rb); ok && !bytecode.CompatibleVersion(c.Header, min) {
		return errs.New(errs.KindUnsupportedBytecodeVersion, "container version %s predates required minimum %s", c.Header.Version(), min)
	}

	strSection, ok := c.Section(bytecode.SectionStringTable)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing STRING_TABLE section")
	}
	strings_, err := bytecode.DecodeStringTable(strSection.Payload)
	if err != nil {
		return err
	}

	resSection, ok := c.Section(bytecode.SectionResourceMeta)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing RESOURCE_META section")
	}
	resources, err := bytecode.DecodeResourceMeta(resSection.Payload)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return errs.New(errs.KindInvalidBytecodeMetadata, "container declares no resources")
	}
	meta := resources[0]

	tasks := make([]ir.TaskConfig, len(meta.Tasks))
	for i, t := range meta.Tasks {
		cfg := ir.TaskConfig{
			Name:     strings_[t.NameIdx],
			Interval: time.Duration(t.IntervalNS),
			Priority: int(t.Priority),
		}
		if t.SingleIdx != bytecode.NoSingle {
			cfg.SingleTrigger = strings_[t.SingleIdx]
		}
		tasks[i] = cfg
	}

	reg := types.New()
	store := &memory.RuntimeStore{
		Globals: memory.NewGlobals(),
		Frames:  memory.NewFrameStack(),
		Arena:   memory.NewArena(),
		Image:   ioimage.NewImage(int(meta.InputSize), int(meta.OutputSize), int(meta.MemorySize)),
	}

	safeState, err := ib.SafeStateValues()
	if err != nil {
		return err
	}
	if err := store.Image.ApplySafeState(safeState); err != nil {
		return err
	}

	forces := control.NewForceTable()
	var driver ioimage.Driver = simulatedDriver{}
	if ib.IO.Driver != "" && ib.IO.Driver != "simulated" {
		return errs.New(errs.KindIoDriver, "no concrete transport registered for driver %q; only \"simulated\" is built in", ib.IO.Driver)
	}
	driver = control.NewForcingDriver(driver, forces)

	prog := &ir.Program{Tasks: tasks}
	std := stdlib.New()
	ev := eval.New()
	dispatcher := runtime.NewDispatcher(prog, reg, std, ev, store)
	sched := scheduler.New(tasks)

	faultPolicy, err := rb.Resource.FaultPolicyValue()
	if err != nil {
		return err
	}
	restartMode, err := rb.Resource.RestartModeValue()
	if err != nil {
		return err
	}
	retainStore := retain.NewFile(rb.Runtime.Retain.Path)

	resCfg := runtime.Config{
		FaultPolicy:     faultPolicy,
		RestartMode:     restartMode,
		WatchdogTimeout: rb.Resource.WatchdogDuration(),
		SafeState:       safeState,
		RetainInterval:  rb.Resource.RetainDuration(),
		RetainStore:     retainStore,
	}

	res := runtime.NewResource(rb.Resource.Name, prog, reg, dispatcher, sched, store,
		[]ioimage.Driver{driver}, clock.RealClock{}, resCfg, runtime.NewSharedGlobals(nil), log, nil)
	if err := res.Init(restartMode); err != nil {
		return err
	}

	sup := &runtime.Supervisor{Resources: []*runtime.Resource{res}, Tick: time.Millisecond}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(ctx) })

	if rb.Runtime.Control.Address != "" {
		srv := control.NewServer(log)
		control.RegisterIO(srv, store.Image, forces)
		network := rb.Runtime.Control.Network
		if network == "" {
			network = "tcp"
		}
		g.Go(func() error { return srv.Serve(ctx, network, rb.Runtime.Control.Address) })
	}

	return g.Wait()
}
