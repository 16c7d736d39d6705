package main

import (
	"context"
	"fmt"
)

func main() {
	app := mustBootstrapMarketAPI()
	defer app.Close()

	if err := app.Run(); err != nil && err != context.Canceled {
		panic(fmt.Sprintf("market-api exited: %v", err))
	}
}
