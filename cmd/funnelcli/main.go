package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"truematch-funnel/internal/api"
	"truematch-funnel/internal/config"
	"truematch-funnel/internal/funnel"
	"truematch-funnel/internal/store"
	"truematch-funnel/internal/verify"
)

// cliHistory es el historial en proceso del REPL: una sola entrada que
// siempre se reemplaza.
type cliHistory struct {
	current string
}

func (h *cliHistory) Replace(dest string) { h.current = dest }
func (h *cliHistory) Current() string     { return h.current }

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	baseURL := api.ResolveBaseURL(cfg.APIBase, cfg.PageScheme, cfg.PageHost, cfg.PagePort)
	client := api.NewClient(baseURL, logger)
	sessionStore := store.NewFileStore(cfg.StorePath, logger)

	history := &cliHistory{current: funnel.LandingPath}
	nav := funnel.NewNavigator(history, logger)
	flow := funnel.NewFlow(client, sessionStore, nav, logger)
	verifier := verify.NewController(client, sessionStore, nav, logger)
	verifier.Subscribe(func(s verify.State) {
		if s.Message != "" {
			fmt.Printf("  [verify] %s\n", s.Message)
		}
	})

	flags := funnel.QueryFlags{}
	fmt.Printf("===== TrueMatch Funnel (backend: %s) =====\n", baseURL)

	for {
		fmt.Printf("\n--- Página actual: %s ---\n", history.Current())
		fmt.Println("[1] Resolver etapa")
		fmt.Println("[2] Login")
		fmt.Println("[3] Registrarse")
		fmt.Println("[4] Verificar correo")
		fmt.Println("[5] Guardar preferencias")
		fmt.Println("[6] OAuth simulado")
		fmt.Println("[7] Cambiar flags de URL")
		fmt.Println("[8] Logout")
		fmt.Println("[9] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		switch line {
		case "1":
			intent := flow.Evaluate(ctx, flags)
			dest := flow.Navigate(intent)
			fmt.Printf("Etapa: %s → %s\n", intent.Stage, dest)
		case "2":
			if err := loginFlow(ctx, reader, flow, flags); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "3":
			if err := signupFlow(ctx, reader, flow, flags); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "4":
			verifyFlow(ctx, reader, verifier, flags)
		case "5":
			intent, err := flow.CompletePreferences(ctx, map[string]string{"source": "cli"}, flags)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("Preferencias guardadas. Etapa: %s\n", intent.Stage)
		case "6":
			fmt.Print("Proveedor (default google): ")
			provider, _ := reader.ReadString('\n')
			provider = strings.TrimSpace(provider)
			if provider == "" {
				provider = "google"
			}
			intent, err := flow.OAuthMock(ctx, provider, flags)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Printf("Etapa: %s → %s\n", intent.Stage, history.Current())
		case "7":
			fmt.Print("Query string (ej: demo=1&prePlan=tier2): ")
			raw, _ := reader.ReadString('\n')
			flags = funnel.ParseQueryFlags(strings.TrimSpace(raw))
			fmt.Printf("Flags: %+v\n", flags)
		case "8":
			dest := flow.Logout(ctx)
			flags = funnel.QueryFlags{}
			fmt.Printf("Sesión cerrada → %s\n", dest)
		case "9":
			os.Exit(0)
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func loginFlow(ctx context.Context, reader *bufio.Reader, flow *funnel.Flow, flags funnel.QueryFlags) error {
	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')

	intent, err := flow.Login(ctx, strings.TrimSpace(email), strings.TrimSpace(password), flags)
	if err != nil {
		return err
	}
	fmt.Printf("Etapa: %s\n", intent.Stage)
	return nil
}

func signupFlow(ctx context.Context, reader *bufio.Reader, flow *funnel.Flow, flags funnel.QueryFlags) error {
	fmt.Print("Nombre: ")
	name, _ := reader.ReadString('\n')
	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')

	outcome, err := flow.Signup(ctx, strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(password), flags)
	if err != nil {
		return err
	}
	fmt.Printf("Cuenta creada. Inicia sesión como %s.\n", outcome.PrefillEmail)
	return nil
}

func verifyFlow(ctx context.Context, reader *bufio.Reader, verifier *verify.Controller, flags funnel.QueryFlags) {
	fmt.Print("Email (vacío usa la sesión local): ")
	email, _ := reader.ReadString('\n')
	verifier.Open(ctx, strings.TrimSpace(email), flags)

	for {
		state := verifier.State()
		if state.Phase == verify.PhaseClosed {
			return
		}
		fmt.Print("Código (R reenviar, Q salir): ")
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		switch {
		case strings.EqualFold(line, "Q"):
			verifier.Close()
			return
		case strings.EqualFold(line, "R"):
			verifier.Resend(ctx)
		case line == "":
			continue
		default:
			if verifier.Submit(ctx, line) {
				fmt.Println("Correo verificado.")
				return
			}
		}
	}
}
