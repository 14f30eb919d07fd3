package sqlinline

const QUpsertWellnessEntry = `--sql 560d8deb-e014-4ef4-9225-3c13a92d22f1
insert into wellness_entries(id, user_id, entry_date, mood, sleep_hours, exercise_minutes, stress, note, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::date, $3::int, $4::numeric, $5::int, $6::int, $7::text, now(), now())
on conflict (user_id, entry_date) do update set
    mood = excluded.mood,
    sleep_hours = excluded.sleep_hours,
    exercise_minutes = excluded.exercise_minutes,
    stress = excluded.stress,
    note = excluded.note,
    updated_at = now()
returning id;
`

const QListWellnessEntries = `--sql a0601d79-a6b9-4648-a343-3c14a5fd78e7
select id, user_id, entry_date, mood, sleep_hours, exercise_minutes, stress, note, created_at, updated_at
from wellness_entries
where user_id = $1::uuid
  and entry_date >= $2::date
  and entry_date <= $3::date
order by entry_date desc;
`

const QWellnessSummary = `--sql ae5d6956-2269-4913-9e1e-f905ae76b011
select
  count(*),
  coalesce(avg(mood), 0),
  coalesce(avg(sleep_hours), 0),
  coalesce(avg(stress), 0),
  coalesce(sum(exercise_minutes), 0)
from wellness_entries
where user_id = $1::uuid
  and entry_date >= $2::date
  and entry_date <= $3::date;
`

const QSelectUserFamily = `--sql 2d678387-44e8-4942-9fb3-572e83e4e23a
select family_id
from users
where id = $1::uuid
limit 1;
`
