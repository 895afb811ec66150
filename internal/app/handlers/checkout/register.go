package checkout

import (
	"rentflow/internal/app/commands"
	"rentflow/internal/app/queries"
)

// Register attaches every checkout handler to the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, sessions Sessions, horizonDays int) {
	commands.RegisterHandler(cmdBus, OpenSessionCommand{}.Key(), &OpenSessionHandler{Sessions: sessions, HorizonDays: horizonDays})
	commands.RegisterHandler(cmdBus, CloseSessionCommand{}.Key(), &CloseSessionHandler{Sessions: sessions})
	commands.RegisterHandler(cmdBus, RefreshCalendarCommand{}.Key(), &RefreshCalendarHandler{Sessions: sessions})
	commands.RegisterHandler(cmdBus, TapDateCommand{}.Key(), &TapDateHandler{Sessions: sessions})
	commands.RegisterHandler(cmdBus, ClearSelectionCommand{}.Key(), &ClearSelectionHandler{Sessions: sessions, HorizonDays: horizonDays})
	commands.RegisterHandler(cmdBus, StartBookingCommand{}.Key(), &StartBookingHandler{Sessions: sessions})
	commands.RegisterHandler(cmdBus, PaymentCallbackCommand{}.Key(), &PaymentCallbackHandler{Sessions: sessions})

	queries.RegisterHandler(queryBus, GetSessionQuery{}.Key(), &GetSessionHandler{Sessions: sessions, HorizonDays: horizonDays})
	queries.RegisterHandler(queryBus, GetCalendarQuery{}.Key(), &GetCalendarHandler{Sessions: sessions})
	queries.RegisterHandler(queryBus, QuoteQuery{}.Key(), &QuoteHandler{Sessions: sessions})
}
