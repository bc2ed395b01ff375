package main

import (
	"context"
	"hirewatch-backend/cmd/hirewatch/cmd"
	"hirewatch-backend/lib/telemetry"
	"hirewatch-backend/lib/util/serviceutil"
)

func main() {
	ctx := context.Background()

	tel, err := telemetry.SetupFromEnv(ctx, "hirewatch")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(ctx)

	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(ctx)
	cmd.ExecuteContext(ctx)
}
