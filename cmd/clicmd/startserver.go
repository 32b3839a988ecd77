package cmd

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"

	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/kigawas/certifier-website/blockchain"
	"github.com/kigawas/certifier-website/cmd/configuration"
	"github.com/kigawas/certifier-website/core"
	ihttp "github.com/kigawas/certifier-website/http"
	"github.com/kigawas/certifier-website/onfido"
	"github.com/kigawas/certifier-website/refund"
	"github.com/kigawas/certifier-website/signer"
	"github.com/kigawas/certifier-website/storage"
)

var (
	servPort   int
	configPath string
	// fallbackSweepSpec catches refunds enqueued mid-sweep without waiting
	// for the next pub/sub trigger.
	fallbackSweepSpec = "@every 5m"
)

func serverStart(_ *cobra.Command, _ []string) {
	env := configuration.RunningMode()
	config, err := configuration.LoadConfig(configPath)
	if err != nil {
		log.Panicf("Can not load config: (%s)", err)
	}

	client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	store := storage.NewRedisStorage(client)
	refundQueue := storage.NewRefundQueue(client)
	verifications := storage.NewVerificationQueue(client)

	ethClient, err := ethclient.Dial(config.EthereumEndpoint)
	if err != nil {
		log.Panicf("Can not dial ethereum node: (%s)", err)
	}
	fileSigner, err := signer.NewFileSigner(config.KeystorePath, config.Passphrase, big.NewInt(config.ChainID))
	if err != nil {
		log.Panicf("Can not load refund operator key: (%s)", err)
	}
	bc, err := blockchain.NewBlockchain(
		ethClient,
		fileSigner,
		ethereum.HexToAddress(config.CertifierAddress),
		ethereum.HexToAddress(config.FeeRegistrarAddress),
	)
	if err != nil {
		log.Panicf("Can not create blockchain: (%s)", err)
	}

	var interf onfido.Interface
	if env == configuration.PRODUCTION_MODE {
		interf = onfido.NewRealInterface()
	} else {
		interf = onfido.NewSimulatedInterface(config.OnfidoSimBaseURL)
	}
	provider := onfido.NewEndpoint(config.OnfidoToken, interf)

	app := core.NewCertifierCore(bc, provider, store, verifications)

	activity, err := refund.NewActivityStorage(config.ActivityDBPath)
	if err != nil {
		log.Panicf("Can not open refund activity storage: (%s)", err)
	}
	reconciler := refund.NewReconciler(refundQueue, bc, activity)
	runner := refund.NewSubscriptionRunner(refundQueue)
	if err := runner.Start(); err != nil {
		log.Panicf("Can not start refund runner: (%s)", err)
	}
	go reconciler.Run(context.Background(), runner)

	c := cron.New()
	if err := c.AddFunc(fallbackSweepSpec, func() {
		reconciler.Sweep(context.Background())
	}); err != nil {
		log.Panicf("Can not schedule fallback sweep: (%s)", err)
	}
	c.Start()

	server := ihttp.NewHTTPServer(
		app,
		activity,
		fmt.Sprintf(":%d", servPort),
		config.SentryDSN,
		env,
	)
	server.Run()
}

var startServer = &cobra.Command{
	Use:   "server",
	Short: "initiate the certifier server with specific config",
	Long: `Start the certifier server with preset Environment and
Allow overwriting some parameter`,
	Example: "CERTIFIER_ENV=dev ./cmd server -p 8000 -c config.json",
	Run:     serverStart,
}

var RootCmd = &cobra.Command{
	Use:   "cmd",
	Short: "certifier-website cli",
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func init() {
	startServer.Flags().IntVarP(&servPort, "port", "p", 8000, "server port")
	startServer.Flags().StringVarP(&configPath, "config", "c", "config.json", "path to the JSON config file")
	RootCmd.AddCommand(startServer)
}
