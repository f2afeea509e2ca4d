package sqlinline

const QSelectCreditBalance = `--sql 6091993c-cce0-4057-8898-13e61cdb9515
select balance
from credit_balances
where user_id = $1::text
limit 1;
`

// QDebitCredits only succeeds when the balance covers the amount.
const QDebitCredits = `--sql 33236f77-746d-4b16-a318-c4560fff5874
update credit_balances
set balance = balance - $2::int,
    updated_at = now()
where user_id = $1::text
  and balance >= $2::int
returning balance;
`

const QAddCredits = `--sql f0c3d864-e19a-4378-a2bf-41bfda78fd54
insert into credit_balances (user_id, balance, updated_at)
values ($1::text, $2::int, now())
on conflict (user_id) do update set
    balance = credit_balances.balance + excluded.balance,
    updated_at = now()
returning balance;
`

const QInsertCreditTransaction = `--sql bcdf74cc-146b-4eb1-baf8-f2aa4c350cda
insert into credit_transactions (id, user_id, kind, feature, amount, reason, metadata, created_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::int, nullif($5::text, ''), coalesce($6::jsonb, '{}'::jsonb), now());
`

const QSelectCreditTransactions = `--sql 3dd2fd9e-1abf-4e07-af4a-488a8c561a76
select kind, feature, amount, coalesce(reason, ''), created_at
from credit_transactions
where user_id = $1::text
order by created_at desc
limit $2::int;
`
