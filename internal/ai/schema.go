package ai

// swapsSchemaDescription describes the ClickHouse schema used for NL→SQL prompting.
//
// Keep it in sync with the columns insertRecordQuery writes in internal/cache/clickhouse.go.
const swapsSchemaDescription = `
Database: solana
Table: swap_records

Columns:
  - signature             String        -- Solana transaction signature (not unique alone: a split swap has two rows sharing one signature, one per classification_source)
  - type                  String        -- "buy" or "sell"
  - classification_source String        -- "v2_parser_single", "v2_parser_split_sell", or "v2_parser_split_buy"
  - swapper                String        -- Wallet address that initiated the swap
  - timestamp              DateTime      -- Block time of the swap (UTC)
  - confidence             String        -- "HIGH", "MEDIUM" or "LOW"
  - sell_amount            String        -- Decimal string: amount of the sold asset
  - buy_amount             String        -- Decimal string: amount of the bought asset
  - sell_sol_amount        Nullable(String) -- Decimal string: native-SOL-denominated value of the sell leg, if computed
  - buy_sol_amount         Nullable(String) -- Decimal string: native-SOL-denominated value of the buy leg, if computed
  - token_in_mint          String        -- Mint address of the asset sold
  - token_in_symbol        String        -- Symbol of the asset sold
  - token_in_amount        String        -- Decimal string: amount of token_in
  - token_out_mint         String        -- Mint address of the asset bought
  - token_out_symbol       String        -- Symbol of the asset bought
  - token_out_amount       String        -- Decimal string: amount of token_out
  - dex                    String        -- DEX/protocol name, e.g. "Raydium" (empty if unidentified)
  - program_id             String        -- On-chain program id of the identified venue (empty if unidentified)
  - tx_fee_native          String        -- Decimal string: network fee in lamports (native smallest unit)
  - tx_fee_quote           String        -- Decimal string: network fee in the swap's quote asset (zero unless the quote asset is native SOL)
  - platform_fee           String        -- Decimal string: protocol/platform fee residual, quote-denominated
  - priority_fee           String        -- Decimal string: priority fee residual, quote-denominated (usually zero; see notes)
  - total_fee_quote        String        -- Decimal string: sum of all fee components, quote-denominated

Notes:
  - Decimal-string columns (sell_amount, buy_amount, *_fee*, etc.) should be cast, e.g. toFloat64(sell_amount), before arithmetic or ORDER BY.
  - A split swap produces two rows with the same signature: one with classification_source = 'v2_parser_split_sell', one with 'v2_parser_split_buy'. Treat them as a pair, not a duplicate.
  - priority_fee is always "0" today: no action-level fee-type hint exists upstream to separate it from platform_fee.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`
